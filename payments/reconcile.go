package payments

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RogueTeam/cardpay/utils"
)

// ProcessUnreconciled goes over the charges that could not be recorded and tries to
// complete their orders again. The gateway is never called
func (c *Controller) ProcessUnreconciled(ctx context.Context) (processed uint64, err error) {
	records, err := c.storage.Unreconciled(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to retrieve unreconciled charges: %w", err)
	}

	var (
		count atomic.Uint64
		wg    sync.WaitGroup
		jobs  = utils.NewJobPool(c.jobs)
	)
	for _, record := range records {
		err = jobs.GetContext(ctx)
		if err != nil {
			break
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer jobs.Put()

			logger := c.logger.With("order", record.OrderId.String(), "gateway_id", record.GatewayTransactionId)
			err := c.storage.CompleteOrder(ctx, record)
			if err != nil {
				logger.Error("failed to reconcile charge", "error", err)
				return
			}

			count.Add(1)
			logger.Info("charge reconciled", "state", StateCompleted)
		}()
	}
	wg.Wait()

	if err != nil {
		return count.Load(), fmt.Errorf("sweep interrupted: %w", err)
	}
	return count.Load(), nil
}
