// Package vendors keeps vendor records, their contacts and the RFP
// invitations sent to them.
package vendors

import (
	"context"
	"strings"
	"time"

	"tprmgrc/internal/apperrors"
	"tprmgrc/internal/core/idgen"
	"tprmgrc/internal/core/validators"
	"tprmgrc/internal/events"
	e "tprmgrc/internal/models/entities"
	"tprmgrc/internal/repositories/sqlserver"
	"tprmgrc/pkg/logger"
)

// Options configures invitation links
type Options struct {
	// BaseURL is the public origin invitation and tracking links point at
	BaseURL string
}

// Engine runs vendor and invitation operations
type Engine struct {
	store *sqlserver.Internal
	ids   *idgen.Generator
	bus   *events.Bus
	log   logger.Interface
	opts  Options
	now   func() time.Time
}

// New wires an Engine
func New(store *sqlserver.Internal, ids *idgen.Generator, bus *events.Bus, log logger.Interface, opts Options) *Engine {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Engine{store: store, ids: ids, bus: bus, log: log, opts: opts, now: time.Now}
}

// VendorInput is the body of CreateVendor
type VendorInput struct {
	VendorCode   string `json:"vendor_code" binding:"required,notblank,max=100"`
	LegalName    string `json:"legal_name" binding:"required,notblank,max=300"`
	BusinessType string `json:"business_type"`
	Country      string `json:"country"`
	Website      string `json:"website" binding:"omitempty,url"`
	RiskLevel    string `json:"risk_level" binding:"omitempty,risklevel"`
}

// CreateVendor inserts a vendor; vendor_code is unique
func (en *Engine) CreateVendor(ctx context.Context, actor string, in VendorInput) (*e.Vendor, error) {
	if err := validators.Struct(in); err != nil {
		return nil, err
	}
	v := &e.Vendor{
		VendorCode:   strings.TrimSpace(in.VendorCode),
		LegalName:    strings.TrimSpace(in.LegalName),
		BusinessType: in.BusinessType,
		Country:      in.Country,
		Website:      in.Website,
		RiskLevel:    strings.ToLower(strings.TrimSpace(in.RiskLevel)),
		Status:       "ACTIVE",
		CreatedBy:    actor,
	}
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		return tx.CreateVendor(v)
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "vendor", "")
	}

	en.bus.Publish(ctx, events.New(events.VendorUpdated, events.EntityVendor, v.VendorID, actor).WithSnapshots(nil, v))
	return v, nil
}

// Detail is a vendor with its contacts, primary first
type Detail struct {
	e.Vendor
	Contacts []e.VendorContact `json:"contacts"`
}

// GetVendor loads a vendor and its contacts
func (en *Engine) GetVendor(ctx context.Context, id int64) (*Detail, error) {
	r := en.store.Reader(ctx)
	v, err := r.GetVendor(id)
	if err != nil {
		return nil, apperrors.FromStore(err, "vendor", id)
	}
	contacts, err := r.ListContacts(id)
	if err != nil {
		return nil, apperrors.FromStore(err, "vendor", id)
	}
	if contacts == nil {
		contacts = []e.VendorContact{}
	}
	return &Detail{Vendor: *v, Contacts: contacts}, nil
}

// ContactInput is the body of AddContact
type ContactInput struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email" binding:"required,email,max=255"`
	Phone       string `json:"phone"`
	Designation string `json:"designation"`
	IsPrimary   bool   `json:"is_primary"`
}

// AddContact adds a contact to a vendor. A primary contact demotes the
// previous one in the same transaction.
func (en *Engine) AddContact(ctx context.Context, actor string, vendorID int64, in ContactInput) (*e.VendorContact, error) {
	if err := validators.Struct(in); err != nil {
		return nil, err
	}
	c := &e.VendorContact{
		VendorID:    vendorID,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:       in.Phone,
		Designation: in.Designation,
		IsPrimary:   in.IsPrimary,
	}
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		if _, err := tx.GetVendor(vendorID); err != nil {
			return err
		}
		if c.IsPrimary {
			if err := tx.ClearPrimaryContacts(vendorID, 0); err != nil {
				return err
			}
		}
		return tx.CreateContact(c)
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "vendor", vendorID)
	}

	en.bus.Publish(ctx, events.New(events.VendorUpdated, events.EntityVendor, vendorID, actor).
		WithSnapshots(nil, c).
		WithMeta("contact_id", itoa(c.ContactID)))
	return c, nil
}

// SetPrimary makes one contact the only primary contact of its vendor
func (en *Engine) SetPrimary(ctx context.Context, actor string, vendorID, contactID int64) (*e.VendorContact, error) {
	var out *e.VendorContact
	err := en.store.Transaction(ctx, func(tx *sqlserver.Tx) error {
		if _, err := tx.GetContact(vendorID, contactID); err != nil {
			return err
		}
		if err := tx.ClearPrimaryContacts(vendorID, contactID); err != nil {
			return err
		}
		if err := tx.SetPrimaryContact(vendorID, contactID); err != nil {
			return err
		}
		c, err := tx.GetContact(vendorID, contactID)
		out = c
		return err
	})
	if err != nil {
		return nil, apperrors.FromStore(err, "contact", contactID)
	}

	en.bus.Publish(ctx, events.New(events.VendorUpdated, events.EntityVendor, vendorID, actor).
		WithMeta("primary_contact_id", itoa(contactID)))
	return out, nil
}

// ListContacts lists the contacts of a vendor
func (en *Engine) ListContacts(ctx context.Context, vendorID int64) ([]e.VendorContact, error) {
	d, err := en.GetVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	return d.Contacts, nil
}
