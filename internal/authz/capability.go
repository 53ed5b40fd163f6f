package authz

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCapability is returned when a capability name is not recognised.
var ErrUnknownCapability = errors.New("authz: unknown capability")

// Capability is one named permission flag.
type Capability uint8

// Capability flags. The order is part of the bitmask layout, append only.
const (
	CanViewAssets Capability = iota
	CanCreateAssets
	CanEditAssets
	CanDeleteAssets
	CanViewInventory
	CanManageInventory
	CanCheckout
	CanCheckin
	CanViewCheckouts
	CanViewLeases
	CanManageLeases
	CanViewDisposals
	CanManageDisposals
	CanViewMaintenance
	CanManageMaintenance
	CanManageMedia
	CanViewReports
	CanExportReports
	CanViewUsers
	CanManageUsers
	CanManageSettings
	CanApproveRequests
	CanManageCategories
	CanManageLocations

	capabilityCount
)

type capabilityDef struct {
	name   string
	column string
}

var capabilityDefs = [capabilityCount]capabilityDef{
	CanViewAssets:        {"canViewAssets", "can_view_assets"},
	CanCreateAssets:      {"canCreateAssets", "can_create_assets"},
	CanEditAssets:        {"canEditAssets", "can_edit_assets"},
	CanDeleteAssets:      {"canDeleteAssets", "can_delete_assets"},
	CanViewInventory:     {"canViewInventory", "can_view_inventory"},
	CanManageInventory:   {"canManageInventory", "can_manage_inventory"},
	CanCheckout:          {"canCheckout", "can_checkout"},
	CanCheckin:           {"canCheckin", "can_checkin"},
	CanViewCheckouts:     {"canViewCheckouts", "can_view_checkouts"},
	CanViewLeases:        {"canViewLeases", "can_view_leases"},
	CanManageLeases:      {"canManageLeases", "can_manage_leases"},
	CanViewDisposals:     {"canViewDisposals", "can_view_disposals"},
	CanManageDisposals:   {"canManageDisposals", "can_manage_disposals"},
	CanViewMaintenance:   {"canViewMaintenance", "can_view_maintenance"},
	CanManageMaintenance: {"canManageMaintenance", "can_manage_maintenance"},
	CanManageMedia:       {"canManageMedia", "can_manage_media"},
	CanViewReports:       {"canViewReports", "can_view_reports"},
	CanExportReports:     {"canExportReports", "can_export_reports"},
	CanViewUsers:         {"canViewUsers", "can_view_users"},
	CanManageUsers:       {"canManageUsers", "can_manage_users"},
	CanManageSettings:    {"canManageSettings", "can_manage_settings"},
	CanApproveRequests:   {"canApproveRequests", "can_approve_requests"},
	CanManageCategories:  {"canManageCategories", "can_manage_categories"},
	CanManageLocations:   {"canManageLocations", "can_manage_locations"},
}

var capabilityByName = func() map[string]Capability {
	m := make(map[string]Capability, 2*int(capabilityCount))
	for i, def := range capabilityDefs {
		m[strings.ToLower(def.name)] = Capability(i)
		m[def.column] = Capability(i)
	}
	return m
}()

// Valid reports whether c is one of the defined flags.
func (c Capability) Valid() bool {
	return c < capabilityCount
}

// String returns the external flag name, e.g. "canViewAssets".
func (c Capability) String() string {
	if !c.Valid() {
		return fmt.Sprintf("capability(%d)", uint8(c))
	}
	return capabilityDefs[c].name
}

// Column returns the storage column backing the flag.
func (c Capability) Column() string {
	if !c.Valid() {
		return ""
	}
	return capabilityDefs[c].column
}

// ParseCapability accepts either the flag name or its column name.
func ParseCapability(name string) (Capability, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if c, ok := capabilityByName[key]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCapability, name)
}

// AllCapabilities lists every flag in declaration order.
func AllCapabilities() []Capability {
	out := make([]Capability, capabilityCount)
	for i := range out {
		out[i] = Capability(i)
	}
	return out
}

// CapabilitySet is a bitmask of granted capabilities.
type CapabilitySet uint32

// NewCapabilitySet builds a set from the given flags, ignoring invalid ones.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s = s.With(c, true)
	}
	return s
}

// Has reports whether c is granted.
func (s CapabilitySet) Has(c Capability) bool {
	return c.Valid() && s&(1<<c) != 0
}

// With returns a copy of s with c switched on or off.
func (s CapabilitySet) With(c Capability, on bool) CapabilitySet {
	if !c.Valid() {
		return s
	}
	if on {
		return s | 1<<c
	}
	return s &^ (1 << c)
}

// List returns granted capabilities in declaration order.
func (s CapabilitySet) List() []Capability {
	var out []Capability
	for i := Capability(0); i < capabilityCount; i++ {
		if s.Has(i) {
			out = append(out, i)
		}
	}
	return out
}

// PermissionColumns lists the storage columns of a permission record in
// scan order: role, is_active, is_approved, then every capability.
func PermissionColumns() []string {
	cols := []string{"role", "is_active", "is_approved"}
	for _, c := range AllCapabilities() {
		cols = append(cols, c.Column())
	}
	return cols
}

// ScanTargets returns scan destinations matching PermissionColumns. Call
// the returned finish func after a successful scan to populate rec.
func ScanTargets(rec *PermissionRecord) ([]any, func()) {
	var (
		role  string
		flags [capabilityCount]bool
	)
	dest := make([]any, 0, capabilityCount+3)
	dest = append(dest, &role, &rec.IsActive, &rec.IsApproved)
	for i := range flags {
		dest = append(dest, &flags[i])
	}
	return dest, func() {
		rec.Role = ParseRole(role)
		var set CapabilitySet
		for i, on := range flags {
			set = set.With(Capability(i), on)
		}
		rec.Capabilities = set
	}
}
