// Copyright 2024-2025 ApeCloud, Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dcs

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Watch blocks, calling notify every time /sync or the member registry
// changes, until ctx is canceled. Each watch session is tagged
// with a random id so its log lines can be correlated across reconnects,
// the way the teacher tags a replication session with the source server's
// uuid.
func (c *Client) Watch(ctx context.Context, watcher clientv3.Watcher, notify func()) {
	sessionID := uuid.New()
	log := logrus.WithField("component", "dcs").WithField("session", sessionID)
	log.Info("starting DCS watch session")

	watch := func(key string, opts ...clientv3.OpOption) {
		ch := watcher.Watch(ctx, key, opts...)
		go func() {
			for resp := range ch {
				if err := resp.Err(); err != nil {
					log.WithField("key", key).WithError(err).Warn("DCS watch error")
					continue
				}
				notify()
			}
		}()
	}
	watch(c.membersPrefix(), clientv3.WithPrefix())
	watch(c.syncKey())

	<-ctx.Done()
	log.Info("stopping DCS watch session")
}
