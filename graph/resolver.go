package graph

import (
	_ "github.com/99designs/gqlgen/plugin"
	"go.opentelemetry.io/otel/trace"
)

//go:generate go run github.com/99designs/gqlgen
// This file will not be regenerated automatically.
//
// Resolver is the dependency-injection root for the Flow GraphQL API.
// Resolvers read the tenant database and the caller's roles from the
// request context, so the tracer is the only shared dependency here.

type Resolver struct {
	Tracer trace.Tracer
}
