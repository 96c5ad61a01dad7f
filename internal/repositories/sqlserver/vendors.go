package sqlserver

import (
	"time"

	"tprmgrc/internal/models/entities"
)

// CreateVendor inserts a vendor
func (t *Tx) CreateVendor(v *entities.Vendor) error {
	return translate(t.db.Create(v).Error, "vendor_code")
}

// GetVendor loads a vendor by id
func (t *Tx) GetVendor(id int64) (*entities.Vendor, error) {
	var out entities.Vendor
	if err := t.db.Where("vendor_id = ?", id).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}

// CreateContact inserts a vendor contact
func (t *Tx) CreateContact(c *entities.VendorContact) error {
	return translate(t.db.Create(c).Error, "vendor_id")
}

// GetContact loads a contact scoped by vendor
func (t *Tx) GetContact(vendorID, contactID int64) (*entities.VendorContact, error) {
	var out entities.VendorContact
	if err := t.db.Where("vendor_id = ? AND contact_id = ?", vendorID, contactID).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}

// ListContacts lists the contacts of a vendor, primary first
func (t *Tx) ListContacts(vendorID int64) ([]entities.VendorContact, error) {
	var out []entities.VendorContact
	err := t.db.Where("vendor_id = ?", vendorID).Order("is_primary DESC").Order("contact_id").Find(&out).Error
	return out, err
}

// PrimaryContact returns the primary contact of a vendor, if any
func (t *Tx) PrimaryContact(vendorID int64) (*entities.VendorContact, error) {
	var out entities.VendorContact
	if err := t.db.Where("vendor_id = ? AND is_primary = ?", vendorID, true).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}

// ClearPrimaryContacts drops the primary flag from every contact of a vendor
// except keep (0 keeps none)
func (t *Tx) ClearPrimaryContacts(vendorID, keep int64) error {
	return t.db.Model(&entities.VendorContact{}).
		Where("vendor_id = ? AND contact_id <> ? AND is_primary = ?", vendorID, keep, true).
		Updates(map[string]interface{}{"is_primary": false, "updated_at": time.Now().UTC()}).Error
}

// SetPrimaryContact flags a contact as primary
func (t *Tx) SetPrimaryContact(vendorID, contactID int64) error {
	res := t.db.Model(&entities.VendorContact{}).
		Where("vendor_id = ? AND contact_id = ?", vendorID, contactID).
		Updates(map[string]interface{}{"is_primary": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateRFP inserts an RFP
func (t *Tx) CreateRFP(r *entities.RFP) error {
	return translate(t.db.Create(r).Error, "rfp_number")
}

// GetRFP loads an RFP by id
func (t *Tx) GetRFP(id int64) (*entities.RFP, error) {
	var out entities.RFP
	if err := t.db.Where("rfp_id = ?", id).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}

// CreateInvitation inserts a vendor invitation
func (t *Tx) CreateInvitation(inv *entities.VendorInvitation) error {
	return translate(t.db.Create(inv).Error, "unique_token")
}

// GetInvitation loads an invitation scoped by RFP
func (t *Tx) GetInvitation(rfpID, invitationID int64) (*entities.VendorInvitation, error) {
	var out entities.VendorInvitation
	if err := t.db.Where("rfp_id = ? AND invitation_id = ?", rfpID, invitationID).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}

// GetInvitationByToken loads an invitation by its unique token
func (t *Tx) GetInvitationByToken(token string) (*entities.VendorInvitation, error) {
	var out entities.VendorInvitation
	if err := t.db.Where("unique_token = ?", token).Take(&out).Error; err != nil {
		return nil, translate(err, "")
	}
	return &out, nil
}

// ExistsInvitationToken reports whether token is taken
func (t *Tx) ExistsInvitationToken(token string) (bool, error) {
	var n int64
	err := t.db.Model(&entities.VendorInvitation{}).Where("unique_token = ?", token).Count(&n).Error
	return n > 0, err
}

// ListInvitations lists the invitations of an RFP
func (t *Tx) ListInvitations(rfpID int64) ([]entities.VendorInvitation, error) {
	var out []entities.VendorInvitation
	err := t.db.Where("rfp_id = ?", rfpID).Order("invitation_id").Find(&out).Error
	return out, err
}

// UpdateInvitation writes every mutable column of an invitation
func (t *Tx) UpdateInvitation(inv *entities.VendorInvitation) error {
	res := t.db.Model(inv).Select("*").Omit("invitation_id", "rfp_id", "unique_token", "created_at").Updates(inv)
	if res.Error != nil {
		return translate(res.Error, "unique_token")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
