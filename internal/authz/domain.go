package authz

import "encoding/json"

// Role is the coarse account role.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// ParseRole maps a stored role value onto Role. Only the exact value
// "admin" yields RoleAdmin; everything else, including case or whitespace
// variants, is a regular user.
func ParseRole(raw string) Role {
	if raw == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

// PermissionRecord is one user's authorization profile. It is a value type;
// copies never share state.
type PermissionRecord struct {
	UserID       string
	Role         Role
	IsActive     bool
	IsApproved   bool
	Capabilities CapabilitySet
}

// IsAdmin reports whether the record carries the admin role.
func (r PermissionRecord) IsAdmin() bool {
	return r.Role == RoleAdmin
}

// Flags returns every capability flag by name, as stored (no admin expansion).
func (r PermissionRecord) Flags() map[string]bool {
	flags := make(map[string]bool, capabilityCount)
	for _, c := range AllCapabilities() {
		flags[c.String()] = r.Capabilities.Has(c)
	}
	return flags
}

// MarshalJSON renders the record with named flags, keeping the external contract flat.
func (r PermissionRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, capabilityCount+4)
	for name, on := range r.Flags() {
		out[name] = on
	}
	if r.UserID != "" {
		out["userId"] = r.UserID
	}
	out["role"] = string(r.Role)
	out["isActive"] = r.IsActive
	out["isApproved"] = r.IsApproved
	return json.Marshal(out)
}

// UnmarshalJSON accepts the flat representation produced by MarshalJSON.
func (r *PermissionRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var rec PermissionRecord
	for key, value := range raw {
		switch key {
		case "userId":
			if err := json.Unmarshal(value, &rec.UserID); err != nil {
				return err
			}
		case "role":
			var role string
			if err := json.Unmarshal(value, &role); err != nil {
				return err
			}
			rec.Role = ParseRole(role)
		case "isActive":
			if err := json.Unmarshal(value, &rec.IsActive); err != nil {
				return err
			}
		case "isApproved":
			if err := json.Unmarshal(value, &rec.IsApproved); err != nil {
				return err
			}
		default:
			c, err := ParseCapability(key)
			if err != nil {
				continue
			}
			var on bool
			if err := json.Unmarshal(value, &on); err != nil {
				return err
			}
			rec.Capabilities = rec.Capabilities.With(c, on)
		}
	}
	if rec.Role == "" {
		rec.Role = RoleUser
	}
	*r = rec
	return nil
}
