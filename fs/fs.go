package appfs

import "embed"

// FS holds the SQL migrations and the email templates.
//go:embed migrations templates/email/*
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "templates/email"
)
