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

// Package pgconf rewrites the managed synchronous_standby_names line in a
// postgresql.conf-style include file and asks the server to reload it. This
// is the "config.set_synchronous_standby_names" collaborator of §6.
package pgconf

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// managedComment is written above the synchronous_standby_names line when
// this writer appends it to a file that has none. The writer finds its line
// by the synchronous_standby_names prefix, not by this comment; every other
// line is left untouched.
const managedComment = "# managed by pgsync-agent, do not edit"

// Writer rewrites synchronous_standby_names in confPath and reloads pool
// via pg_reload_conf() after a successful write.
type Writer struct {
	confPath string
	pool     *pgxpool.Pool
	log      *logrus.Entry
}

// NewWriter returns a Writer targeting confPath, an include file the main
// postgresql.conf is expected to `include_if_exists`.
func NewWriter(confPath string, pool *pgxpool.Pool) *Writer {
	return &Writer{confPath: confPath, pool: pool, log: logrus.WithField("component", "pgconf")}
}

// SetSynchronousStandbyNames rewrites the managed line to value (removing
// it entirely when value is nil, which disables synchronous replication)
// and reloads the server configuration. It reports whether the file
// content actually changed.
func (w *Writer) SetSynchronousStandbyNames(ctx context.Context, value *string) (bool, error) {
	lines, err := w.readManagedLines()
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", w.confPath, err)
	}

	var newLine string
	if value != nil {
		newLine = fmt.Sprintf("synchronous_standby_names = %s", quoteConfValue(*value))
	}

	current := currentSynchronousStandbyNamesLine(lines)
	if current == newLine {
		return false, nil
	}

	if err := w.writeManagedLines(replaceSynchronousStandbyNamesLine(lines, newLine)); err != nil {
		return false, fmt.Errorf("writing %s: %w", w.confPath, err)
	}

	if _, err := w.pool.Exec(ctx, "SELECT pg_reload_conf()"); err != nil {
		return false, fmt.Errorf("reloading configuration: %w", err)
	}

	w.log.WithField("value", value).Info("updated synchronous_standby_names")
	return true, nil
}

func quoteConfValue(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func (w *Writer) readManagedLines() ([]string, error) {
	f, err := os.Open(w.confPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func (w *Writer) writeManagedLines(lines []string) error {
	f, err := os.Create(w.confPath)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := bufio.NewWriter(f)
	for _, line := range lines {
		if _, err := fmt.Fprintln(writer, line); err != nil {
			return err
		}
	}
	return writer.Flush()
}

func currentSynchronousStandbyNamesLine(lines []string) string {
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "synchronous_standby_names") {
			return l
		}
	}
	return ""
}

func replaceSynchronousStandbyNamesLine(lines []string, newLine string) []string {
	out := make([]string, 0, len(lines)+2)
	replaced := false
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "synchronous_standby_names") {
			if newLine != "" {
				out = append(out, newLine)
			}
			replaced = true
			continue
		}
		out = append(out, l)
	}
	if !replaced && newLine != "" {
		out = append(out, managedComment, newLine)
	}
	return out
}
