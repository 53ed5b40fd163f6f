package authz

// Allowed is returned by successful gate checks. It carries the record the
// decision was made on.
type Allowed struct {
	record PermissionRecord
}

// Record returns the permission record behind the decision.
func (a Allowed) Record() PermissionRecord {
	return a.record
}

// HasCapability reports whether record grants c. Admins hold every
// capability. A nil record grants nothing.
func HasCapability(record *PermissionRecord, c Capability) bool {
	if record == nil {
		return false
	}
	if record.IsAdmin() {
		return true
	}
	return record.Capabilities.Has(c)
}
