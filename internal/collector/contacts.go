package collector

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/fault"
	"github.com/powderlines/powderlines/internal/resort"
)

// ContactClient looks up public contact details for a resort.
type ContactClient interface {
	FindContact(ctx context.Context, name string, lat, lon float64) (*resort.ContactInfo, error)
}

// ContactCollector enriches resorts with phone, website, and opening
// hours from the places directory.
type ContactCollector struct {
	cfg    Config
	logger zerolog.Logger
	store  Store
	places ContactClient
}

// ContactCollectorConfig wires the contact collector.
type ContactCollectorConfig struct {
	Config Config
	Logger zerolog.Logger
	Store  Store
	Places ContactClient
}

// NewContactCollector creates a contact collector.
func NewContactCollector(cfg ContactCollectorConfig) *ContactCollector {
	return &ContactCollector{
		cfg:    cfg.Config.normalized(),
		logger: cfg.Logger,
		store:  cfg.Store,
		places: cfg.Places,
	}
}

// Run enriches every given resort through the worker pool.
func (cc *ContactCollector) Run(ctx context.Context, resorts []resort.Descriptor) *RunResult {
	return runSweep(ctx, cc.logger, "contacts", cc.cfg.Concurrency, resorts, func(ctx context.Context, desc resort.Descriptor) error {
		ctx, cancel := context.WithTimeout(ctx, cc.cfg.ResortTimeout)
		defer cancel()
		return cc.CollectContact(ctx, desc)
	})
}

// CollectContact looks up and stores contact details for one resort.
func (cc *ContactCollector) CollectContact(ctx context.Context, desc resort.Descriptor) error {
	info, err := cc.places.FindContact(ctx, desc.Name, desc.Lat, desc.Lon)
	if err != nil {
		return err
	}

	if err := cc.store.SaveContact(ctx, desc.ID, desc.Slug, info); err != nil {
		return fault.New(fault.TypeDatabaseSave, err.Error(), "")
	}
	return nil
}
