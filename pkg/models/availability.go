package models

// MaterialIssue reports a shortfall for one required material.
type MaterialIssue struct {
	MaterialID string  `json:"material_id"`
	Required   float64 `json:"required"`
	Available  float64 `json:"available"`
	Unit       string  `json:"unit"`
}

// EquipmentConflict reports a booking clash for one required piece of equipment.
type EquipmentConflict struct {
	EquipmentID         string   `json:"equipment_id"`
	ConflictingInterval Interval `json:"conflicting_interval"`
	ConflictDescription string   `json:"conflict_description"`
}

// AvailabilityReport is a point-in-time, read-only assessment of whether a
// routine could be started right now. It is advisory: materials are
// re-verified inside the deduction transaction when the execution completes.
type AvailabilityReport struct {
	MaterialsAvailable bool                `json:"materials_available"`
	EquipmentAvailable bool                `json:"equipment_available"`
	MaterialIssues     []MaterialIssue     `json:"material_issues,omitempty"`
	EquipmentConflicts []EquipmentConflict `json:"equipment_conflicts,omitempty"`
}

// Clear reports whether both material and equipment checks passed.
func (r *AvailabilityReport) Clear() bool {
	return r.MaterialsAvailable && r.EquipmentAvailable
}
