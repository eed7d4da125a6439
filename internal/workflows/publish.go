package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// PublishInput is the input for the tour publishing workflow.
type PublishInput struct {
	TourID   string
	AuthorID string
}

// PublishWorkflow orchestrates the post-publish pipeline: pin down the tour's
// starting coordinate, compute the walking polyline through its stops, and
// notify the author. If route computation fails the tour is reverted to draft
// (saga compensation) so discovery never serves a half-published tour.
func PublishWorkflow(ctx workflow.Context, input PublishInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting publish workflow", "tourID", input.TourID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Make sure the tour has a usable starting coordinate
	err := workflow.ExecuteActivity(ctx, "EnsureStartCoordinate", input.TourID).Get(ctx, nil)
	if err != nil {
		logger.Warn("start coordinate unresolvable, reverting to draft", "error", err)
		_ = workflow.ExecuteActivity(ctx, "RevertToDraft", input.TourID).Get(ctx, nil)
		return err
	}

	// Step 2: Compute and store the walking polyline through the stops
	err = workflow.ExecuteActivity(ctx, "ComputeWalkingRoute", input.TourID).Get(ctx, nil)
	if err != nil {
		logger.Warn("route computation failed, reverting to draft", "error", err)
		_ = workflow.ExecuteActivity(ctx, "RevertToDraft", input.TourID).Get(ctx, nil)
		return err
	}

	// Step 3: Tell the author their tour is live. Best-effort; a failed push
	// does not unpublish the tour.
	if err := workflow.ExecuteActivity(ctx, "NotifyAuthor", input.AuthorID, input.TourID).Get(ctx, nil); err != nil {
		logger.Warn("author notification failed", "error", err)
	}

	logger.Info("Publish workflow complete", "tourID", input.TourID)
	return nil
}
