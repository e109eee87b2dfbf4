package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/prismintel/propertyflow/internal/common"
	"github.com/prismintel/propertyflow/internal/gateway"
)

var (
	instance *gateway.Gateway
	once     sync.Once
	initErr  error
)

func init() {
	functions.CloudEvent("ProcessIntakeDocument", processIntakeDocument)
}

func main() {
	port := common.GetEnv("PORT", "8080")
	if err := funcframework.Start(port); err != nil {
		fmt.Fprintf(os.Stderr, "funcframework.Start: %v\n", err)
		os.Exit(1)
	}
}

// processIntakeDocument is the CloudEvent entry point for GCS finalize
// events on the intake bucket.
func processIntakeDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		instance, initErr = gateway.New(context.Background())
	})
	if initErr != nil {
		return fmt.Errorf("gateway initialization: %w", initErr)
	}

	var gcsEvent gateway.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	return instance.Process(ctx, gcsEvent)
}
