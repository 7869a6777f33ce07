package i18n

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kdsmith18542/localekit/observability"
)

// getObserver returns the process-wide observer. It is a no-op until
// observability.Init or observability.SetObserver is called.
func getObserver() observability.Observer {
	return observability.GetObserver()
}

func startLookupSpan(module, culture, name string) (context.Context, trace.Span) {
	return observability.StartSpan(context.Background(), "i18n.lookup",
		trace.WithAttributes(
			attribute.String("i18n.module", module),
			attribute.String("i18n.culture", culture),
			attribute.String("i18n.name", name),
		))
}
