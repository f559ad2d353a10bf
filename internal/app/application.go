// Package app wires the storage layer to the domain services.
package app

import (
	"github.com/appealdesk/appealdesk/internal/app/services/appeals"
	"github.com/appealdesk/appealdesk/internal/app/storage"
	"github.com/appealdesk/appealdesk/internal/app/storage/memory"
	"github.com/appealdesk/appealdesk/pkg/logger"
)

// Stores aggregates the persistence dependencies of the application. Nil
// fields fall back to in-memory implementations, which keeps tests and local
// runs free of external services.
type Stores struct {
	Appeals storage.AppealStore
}

func (s Stores) withDefaults() Stores {
	if s.Appeals == nil {
		s.Appeals = memory.New()
	}
	return s
}

// Application bundles the domain services behind a single entry point.
type Application struct {
	Appeals *appeals.Service
}

// New constructs the application from the given stores.
func New(stores Stores, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}
	stores = stores.withDefaults()

	return &Application{
		Appeals: appeals.New(stores.Appeals, log.WithField("service", "appeals")),
	}
}
