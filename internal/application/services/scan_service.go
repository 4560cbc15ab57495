package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/progress"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/session"
	"github.com/sugarswap/sugarswap-go/internal/domain/feedback"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/lookup"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/messaging"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
)

// ScanService orchestrates the scan flow: barcode resolution, the confirm
// feedback prompt, and the progression settlement that runs when the user
// confirms the log.
type ScanService struct {
	catalog     *CatalogService
	progression *ProgressionService
	broadcaster messaging.Broadcaster
	logger      *logging.ChanneledLogger
}

// NewScanService creates a scan service
func NewScanService(catalogSvc *CatalogService, progression *ProgressionService, broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger) *ScanService {
	return &ScanService{
		catalog:     catalogSvc,
		progression: progression,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// SubmitScan resolves a barcode and enqueues the confirmation prompt.
// Resolution failures surface as plain feedback items so the display flow
// stays uniform; the error is also returned for logging.
func (s *ScanService) SubmitScan(ctx context.Context, sc *session.Context, saver *SaveScheduler, barcode string) (*catalog.Product, string, error) {
	product, cached, err := s.catalog.ResolveProduct(ctx, sc, barcode)
	if err != nil {
		id := sc.Queue.Enqueue(scanErrorItem(err, barcode))
		return nil, id, err
	}

	sugar := s.progression.Model().SugarIntake(product)
	prompt := &feedback.Item{
		Kind:    feedback.KindConfirm,
		Title:   "Log this product?",
		Message: fmt.Sprintf("%s (%.1fg sugar per serving)", product.DisplayName(), sugar),
		Icon:    "scan",
		OnConfirm: func() {
			s.settle(sc, saver, product)
		},
	}
	id := sc.Queue.Enqueue(prompt)

	s.logger.Catalog().Debug("Scan submitted", "barcode", barcode, "cached", cached, "feedbackId", id)
	return product, id, nil
}

// settle applies the confirmed product to the session state, queues the
// result feedback, schedules persistence, and pushes the new stats
func (s *ScanService) settle(sc *session.Context, saver *SaveScheduler, product *catalog.Product) {
	today := Today()

	var outcome *Outcome
	var snapshot StatsSnapshot
	sc.WithState(func(state *progress.GamificationState, _ *catalog.Cache) {
		outcome = s.progression.ProcessProduct(state, product, today)
		snapshot = s.progression.Snapshot(state)
	})

	for _, item := range outcome.Feedback {
		sc.Queue.Enqueue(item)
	}
	s.broadcaster.BroadcastProgress(sc.Username, progressEvent{Stats: snapshot, Effects: outcome.Effects})
	saver.Schedule()
}

// LogWater applies a logged glass of water without a confirmation prompt
func (s *ScanService) LogWater(sc *session.Context, saver *SaveScheduler) *Outcome {
	today := Today()

	var outcome *Outcome
	var snapshot StatsSnapshot
	sc.WithState(func(state *progress.GamificationState, _ *catalog.Cache) {
		outcome = s.progression.LogWater(state, today)
		snapshot = s.progression.Snapshot(state)
	})

	for _, item := range outcome.Feedback {
		sc.Queue.Enqueue(item)
	}
	s.broadcaster.BroadcastProgress(sc.Username, progressEvent{Stats: snapshot, Effects: outcome.Effects})
	saver.Schedule()
	return outcome
}

// progressEvent is the SSE payload for progression updates
type progressEvent struct {
	Stats   StatsSnapshot `json:"stats"`
	Effects []string      `json:"effects,omitempty"`
}

// scanErrorItem maps a resolution failure to its feedback item
func scanErrorItem(err error, barcode string) *feedback.Item {
	switch {
	case errors.Is(err, lookup.ErrInvalidBarcode):
		return &feedback.Item{
			Kind:    feedback.KindOK,
			Title:   "Invalid Barcode",
			Message: "That code doesn't look like a product barcode. Try again.",
			Icon:    "x-circle",
		}
	case errors.Is(err, lookup.ErrProductNotFound):
		return &feedback.Item{
			Kind:    feedback.KindOK,
			Title:   "Product Not Found",
			Message: fmt.Sprintf("No product data for %s.", barcode),
			Icon:    "search",
		}
	default:
		return &feedback.Item{
			Kind:    feedback.KindOK,
			Title:   "Lookup Failed",
			Message: "Couldn't reach the product database. Check your connection.",
			Icon:    "wifi-off",
		}
	}
}
