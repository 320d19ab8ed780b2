package syncctl

import (
	"context"
	"fmt"
	"time"

	"github.com/apecloud/pgsync/ciset"
	"github.com/apecloud/pgsync/ssn"
)

// reloadPropagationDelay bounds the wait for a config reload to take
// effect. A typical reload is ~1ms; this is a generous ceiling, not a
// measured value.
const reloadPropagationDelay = 100 * time.Millisecond

// SetSynchronousStandbyNames implements the Emitter (§4.5). It formats
// syncSet into a synchronous_standby_names value and asks the database
// configuration collaborator to apply it.
//
// The "*" case is treated as "any one standby will do": it deliberately
// skips the post-write rebase (Step 7), since no specific member is
// distinguished by that configuration and there is nothing to re-gate.
func (c *Controller) SetSynchronousStandbyNames(ctx context.Context, syncSet ciset.Set) error {
	hasStar := syncSet.Has("*")
	names := syncSet.Names()
	if hasStar {
		names = []string{"*"}
	}

	value := ssn.Format(names, c.db.SupportsMultipleSync())
	var valuePtr *string
	if value != "" {
		valuePtr = &value
	}

	changed, err := c.db.SetSynchronousStandbyNames(ctx, valuePtr)
	if err != nil {
		return fmt.Errorf("writing synchronous_standby_names: %w", err)
	}
	if !changed || hasStar {
		return nil
	}

	if c.db.State() != "running" {
		return nil
	}
	isLeader, err := c.db.IsLeader(ctx)
	if err != nil {
		return fmt.Errorf("checking leadership after config write: %w", err)
	}
	if !isLeader {
		return nil
	}

	time.Sleep(reloadPropagationDelay)
	c.db.ResetClusterInfoState(c.nextToken())

	timeline, err := c.db.PrimaryTimeline(ctx)
	if err != nil {
		return fmt.Errorf("reading primary timeline after config write: %w", err)
	}
	if timeline <= 0 {
		// timeline == 0 means this node is actually a replica; nothing to
		// rebase.
		return nil
	}

	if err := c.detectSSNChange(ctx); err != nil {
		return fmt.Errorf("rebasing after synchronous_standby_names write: %w", err)
	}
	return nil
}
