package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/site-access/internal/core/events"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event bus commands",
	Long:  `Publish synthetic events through the wired event bus to check subscribers end to end`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a synthetic event",
	Long: `Publish a synthetic event to the event bus with the production subscribers attached.
Publishing audit.write_failed writes a row to the error log.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := publishTestEvent(args[0]); err != nil {
			log.Fatal(err)
		}
	},
}

var (
	eventData       string
	eventEmployeeID int64
	eventBranch     string
)

func publishTestEvent(eventType string) error {
	deps, err := initializeDependencies()
	if err != nil {
		return fmt.Errorf("failed to init dependencies: %w", err)
	}
	defer deps.close()

	event, err := syntheticEvent(eventType)
	if err != nil {
		return err
	}

	deps.Logger.Info("publishing synthetic event", "event_type", event.EventType(), "event_id", event.EventID())

	if err := deps.Bus.PublishSync(context.Background(), event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	deps.Logger.Info("synthetic event handled")
	return nil
}

func syntheticEvent(eventType string) (events.Event, error) {
	now := time.Now().UTC()
	switch eventType {
	case events.EventTypeAuditWriteFailed:
		return events.NewAuditWriteFailedEvent(eventEmployeeID, eventBranch, fmt.Errorf("%s", eventData), now), nil
	case events.EventTypeAccessGranted:
		return events.NewAccessGrantedEvent(eventEmployeeID, eventBranch, 1, now), nil
	case events.EventTypeAccessDenied:
		return events.NewAccessDeniedEvent("", eventEmployeeID, eventData, now), nil
	}
	return nil, fmt.Errorf("unknown event type %q", eventType)
}

func init() {
	publishEventCmd.Flags().StringVar(&eventData, "data", "synthetic event from cli", "error message or denial reason carried by the event")
	publishEventCmd.Flags().Int64Var(&eventEmployeeID, "employee-id", 0, "employee id carried by the event")
	publishEventCmd.Flags().StringVar(&eventBranch, "branch", "cli", "branch carried by the event")

	eventCmd.AddCommand(publishEventCmd)
}
