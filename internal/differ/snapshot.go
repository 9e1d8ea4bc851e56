package differ

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/confsync/confsync/internal/interfaces"
	"github.com/confsync/confsync/internal/resources"
)

// FetchSnapshot lists every managed resource type from the remote platform
// and assembles a read-only snapshot. Different types are independent
// collections, so the listings run in parallel. Any listing failure is
// fatal for the run: diffing against a partial snapshot would plan
// duplicate creates.
func FetchSnapshot(ctx context.Context, clients interfaces.RemoteClientSet) (*interfaces.Snapshot, error) {
	snapshot := interfaces.NewSnapshot()

	var mu sync.Mutex
	group, ctx := errgroup.WithContext(ctx)

	for _, spec := range resources.All() {
		client, err := clients.ForType(spec.Type)
		if err != nil {
			return nil, fmt.Errorf("no remote client for %s: %w", spec.Type, err)
		}

		resourceType := spec.Type
		group.Go(func() error {
			records, err := client.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", resourceType, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, rec := range records {
				snapshot.Add(rec)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return snapshot, nil
}
