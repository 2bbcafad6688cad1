package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bachat/bachat/internal/shared"
)

// PermissionSeeder creates the companion permission for a freshly discovered
// action. Implemented by the permissions service; the permission starts
// inactive so an administrator has to opt in before it grants anything.
type PermissionSeeder interface {
	CreateForAction(ctx context.Context, action Action, description string) error
}

// ItemError records a single descriptor that failed to register. Failures
// are isolated per action so one bad row cannot abort a whole sync.
type ItemError struct {
	Controller string `json:"controller"`
	Action     string `json:"action"`
	Method     string `json:"method"`
	Message    string `json:"message"`
}

// SyncReport summarises a registration or sync run.
type SyncReport struct {
	Discovered  int         `json:"discovered"`
	Created     int         `json:"created"`
	Deactivated int         `json:"deactivated"`
	Errors      []ItemError `json:"errors,omitempty"`
}

// Discoverer reconciles the route manifest against the persisted catalog.
type Discoverer struct {
	manifest *Manifest
	actions  Repository
	perms    PermissionSeeder
	logger   *slog.Logger
}

// NewDiscoverer constructs a Discoverer.
func NewDiscoverer(manifest *Manifest, actions Repository, perms PermissionSeeder, logger *slog.Logger) *Discoverer {
	return &Discoverer{manifest: manifest, actions: actions, perms: perms, logger: logger}
}

// Discover returns the current route manifest snapshot. Pure read, no side
// effects.
func (d *Discoverer) Discover() []Descriptor {
	return d.manifest.Descriptors()
}

// DiscoverAndRegister inserts an Action plus an inactive companion
// Permission for every manifest entry not yet in the catalog. Running it
// twice with an unchanged manifest is a no-op. Already-committed rows are
// never rolled back on cancellation.
func (d *Discoverer) DiscoverAndRegister(ctx context.Context) (SyncReport, error) {
	descriptors := d.Discover()
	report := SyncReport{Discovered: len(descriptors)}
	if len(descriptors) == 0 && d.logger != nil {
		d.logger.Warn("no actions discovered from route manifest")
	}

	for _, desc := range descriptors {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		created, err := d.registerOne(ctx, desc)
		if err != nil {
			report.Errors = append(report.Errors, itemError(desc, err))
			continue
		}
		if created {
			report.Created++
		}
	}
	return report, nil
}

// Sync runs DiscoverAndRegister semantics and additionally deactivates
// previously-active actions that no longer appear in the manifest (endpoints
// removed from the code). Rows are kept for audit, never deleted.
func (d *Discoverer) Sync(ctx context.Context) (SyncReport, error) {
	report, err := d.DiscoverAndRegister(ctx)
	if err != nil {
		return report, err
	}

	existing, err := d.actions.GetAll(ctx)
	if err != nil {
		return report, fmt.Errorf("catalog: list actions: %w", err)
	}

	live := make(map[string]struct{})
	for _, desc := range d.Discover() {
		live[desc.Triple()] = struct{}{}
	}

	for _, action := range existing {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !action.IsActive {
			continue
		}
		key := action.Controller + "." + action.Name + "." + action.Method
		if _, ok := live[key]; ok {
			continue
		}
		if err := d.actions.SetActive(ctx, action.ID, false); err != nil {
			report.Errors = append(report.Errors, ItemError{
				Controller: action.Controller,
				Action:     action.Name,
				Method:     action.Method,
				Message:    err.Error(),
			})
			continue
		}
		report.Deactivated++
		if d.logger != nil {
			d.logger.Info("deactivated removed action",
				slog.String("controller", action.Controller),
				slog.String("action", action.Name),
				slog.String("method", action.Method))
		}
	}
	return report, nil
}

// RunAtStartup performs a best-effort registration pass. Failures (catalog
// tables not migrated yet, store unavailable) are logged and do not block
// startup; sync can be re-triggered through the admin endpoint.
func (d *Discoverer) RunAtStartup(ctx context.Context) {
	report, err := d.DiscoverAndRegister(ctx)
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("startup action discovery failed", slog.Any("error", err))
		}
		return
	}
	if d.logger != nil {
		d.logger.Info("startup action discovery complete",
			slog.Int("discovered", report.Discovered),
			slog.Int("created", report.Created),
			slog.Int("errors", len(report.Errors)))
	}
}

func (d *Discoverer) registerOne(ctx context.Context, desc Descriptor) (bool, error) {
	_, err := d.actions.GetByTriple(ctx, desc.Controller, desc.Action, desc.Method)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return false, fmt.Errorf("catalog: lookup action: %w", err)
	}

	action := Action{
		ID:          uuid.New(),
		Controller:  desc.Controller,
		Name:        desc.Action,
		Method:      desc.Method,
		Route:       desc.Route,
		Description: desc.Description,
		IsActive:    true,
		CreatedBy:   uuid.Nil, // system actor
	}
	if err := d.actions.Insert(ctx, action); err != nil {
		return false, fmt.Errorf("catalog: insert action: %w", err)
	}

	if err := d.perms.CreateForAction(ctx, action, desc.Description); err != nil {
		return true, fmt.Errorf("catalog: seed permission: %w", err)
	}
	return true, nil
}

func itemError(desc Descriptor, err error) ItemError {
	return ItemError{Controller: desc.Controller, Action: desc.Action, Method: desc.Method, Message: err.Error()}
}
