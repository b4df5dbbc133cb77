package accounts

import (
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("articlesearch.services.accounts")
