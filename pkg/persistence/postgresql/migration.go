package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE routines (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				schedule_type VARCHAR(50) NOT NULL CHECK (schedule_type IN ('template', 'one_time', 'recurring')),
				deadline TIMESTAMP WITH TIME ZONE,
				recurrence JSONB,
				materials JSONB NOT NULL DEFAULT '[]',
				equipment JSONB NOT NULL DEFAULT '[]',
				steps JSONB NOT NULL DEFAULT '[]',
				assigned_user_ids JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_routines_schedule_type ON routines(schedule_type);
			CREATE INDEX idx_routines_deadline ON routines(deadline);

			CREATE TABLE routine_executions (
				id UUID PRIMARY KEY,
				routine_id VARCHAR(255) NOT NULL,
				executed_by VARCHAR(255) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('in_progress', 'completed', 'cancelled')),
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				notes TEXT NOT NULL DEFAULT '',
				step_completions JSONB NOT NULL DEFAULT '[]',
				material_deductions JSONB NOT NULL DEFAULT '[]'
			);

			CREATE INDEX idx_routine_executions_routine_id ON routine_executions(routine_id);
			CREATE INDEX idx_routine_executions_status ON routine_executions(status);

			CREATE TABLE inventory_levels (
				material_id VARCHAR(255) PRIMARY KEY,
				quantity DOUBLE PRECISION NOT NULL CHECK (quantity >= 0),
				unit VARCHAR(50) NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE equipment_bookings (
				id UUID PRIMARY KEY,
				equipment_id VARCHAR(255) NOT NULL,
				start_time TIMESTAMP WITH TIME ZONE NOT NULL,
				end_time TIMESTAMP WITH TIME ZONE NOT NULL,
				owner_execution_id UUID,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				CHECK (end_time > start_time)
			);

			CREATE INDEX idx_equipment_bookings_equipment_id ON equipment_bookings(equipment_id);
			CREATE INDEX idx_equipment_bookings_owner ON equipment_bookings(owner_execution_id);
		`,
	}
}
