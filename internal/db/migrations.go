package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'request_status') THEN
			CREATE TYPE request_status AS ENUM ('REQUESTED', 'ASSIGNED', 'IN_PROGRESS', 'COMPLETED', 'CLOSED', 'CANCELLED');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'request_priority') THEN
			CREATE TYPE request_priority AS ENUM ('LOW', 'MEDIUM', 'HIGH');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'invoice_status') THEN
			CREATE TYPE invoice_status AS ENUM ('PENDING', 'PAID');
		END IF;
	END
	$$;`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'user_role') THEN
			CREATE TYPE user_role AS ENUM ('CUSTOMER', 'TECHNICIAN', 'MANAGER');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS users (
		id uuid PRIMARY KEY DEFAULT uuid_generate_v4(),
		full_name varchar(255) NOT NULL,
		email varchar(255) NOT NULL UNIQUE,
		role user_role NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS service_categories (
		id uuid PRIMARY KEY DEFAULT uuid_generate_v4(),
		name varchar(255) NOT NULL,
		description text,
		base_charge double precision NOT NULL,
		sla_hours integer NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	);`,
	`CREATE TABLE IF NOT EXISTS service_requests (
		id uuid PRIMARY KEY DEFAULT uuid_generate_v4(),
		customer_id uuid NOT NULL,
		technician_id uuid,
		category_id uuid NOT NULL REFERENCES service_categories(id),
		category_name varchar(255) NOT NULL,
		category_base_charge double precision NOT NULL,
		category_sla_hours integer NOT NULL,
		issue_description text NOT NULL,
		priority request_priority NOT NULL DEFAULT 'MEDIUM',
		status request_status NOT NULL DEFAULT 'REQUESTED',
		scheduled_date timestamptz,
		planned_start_at timestamptz,
		work_started_at timestamptz,
		work_ended_at timestamptz,
		completed_at timestamptz,
		resolution_notes text,
		total_price double precision NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_service_requests_customer_id ON service_requests(customer_id);`,
	`CREATE INDEX IF NOT EXISTS idx_service_requests_technician_id ON service_requests(technician_id);`,
	`CREATE INDEX IF NOT EXISTS idx_service_requests_status ON service_requests(status);`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id uuid PRIMARY KEY DEFAULT uuid_generate_v4(),
		service_request_id uuid NOT NULL UNIQUE REFERENCES service_requests(id),
		amount double precision NOT NULL CHECK (amount > 0),
		status invoice_status NOT NULL DEFAULT 'PENDING',
		paid_at timestamptz,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	);`,
}

func RunMigrations(database *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := database.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration statement %d: %w", i, err)
		}
	}
	return nil
}
