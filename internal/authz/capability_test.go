package authz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCapabilityNamesAreUnique(t *testing.T) {
	all := AllCapabilities()
	require.Len(t, all, 24)
	names := make(map[string]struct{}, len(all))
	columns := make(map[string]struct{}, len(all))
	for _, c := range all {
		names[c.String()] = struct{}{}
		columns[c.Column()] = struct{}{}
	}
	require.Len(t, names, len(all))
	require.Len(t, columns, len(all))
}

func TestParseCapability(t *testing.T) {
	c, err := ParseCapability("canManageUsers")
	require.NoError(t, err)
	require.Equal(t, CanManageUsers, c)

	c, err = ParseCapability("can_view_assets")
	require.NoError(t, err)
	require.Equal(t, CanViewAssets, c)

	c, err = ParseCapability(" CANCHECKOUT ")
	require.NoError(t, err)
	require.Equal(t, CanCheckout, c)

	_, err = ParseCapability("canFly")
	require.ErrorIs(t, err, ErrUnknownCapability)
}

func TestCapabilitySet(t *testing.T) {
	s := NewCapabilitySet(CanViewAssets, CanExportReports, Capability(200))
	require.True(t, s.Has(CanViewAssets))
	require.True(t, s.Has(CanExportReports))
	require.False(t, s.Has(CanManageUsers))
	require.False(t, s.Has(Capability(200)))
	require.Equal(t, []Capability{CanViewAssets, CanExportReports}, s.List())

	s = s.With(CanViewAssets, false)
	require.False(t, s.Has(CanViewAssets))
	require.Equal(t, "capability(200)", Capability(200).String())
}

func TestPermissionRecordJSON(t *testing.T) {
	rec := PermissionRecord{
		UserID:       "u-1",
		Role:         RoleUser,
		IsActive:     true,
		IsApproved:   true,
		Capabilities: NewCapabilitySet(CanViewAssets, CanCheckout),
	}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))
	require.Equal(t, "user", flat["role"])
	require.Equal(t, true, flat["canViewAssets"])
	require.Equal(t, false, flat["canManageUsers"])
	require.Len(t, flat, 24+4)

	var decoded PermissionRecord
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, rec, decoded)
}

func TestParseRole(t *testing.T) {
	require.Equal(t, RoleAdmin, ParseRole("admin"))
	require.Equal(t, RoleUser, ParseRole(" Admin "))
	require.Equal(t, RoleUser, ParseRole("ADMIN"))
	require.Equal(t, RoleUser, ParseRole("admin "))
	require.Equal(t, RoleUser, ParseRole("user"))
	require.Equal(t, RoleUser, ParseRole("superuser"))
}
