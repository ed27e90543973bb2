// Package database provides the link store: connection setup, migrations and
// domain repositories.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup, migrations, default profile seeding
//	├── links/           # Link CRUD, ordered reads, duplicate lookups
//	├── tags/            # Tag get-or-create and link counts
//	├── profiles/        # Profile management
//	├── settings/        # Application settings
//	└── audit/           # Import/export/backup audit trail
//
// Each sub-package exposes a Repository built with NewRepository(db *gorm.DB).
// Repositories that take part in a batch write also offer WithTx so the
// import and restore pipelines can run them inside one transaction:
//
//	err := db.WithTransaction(func(tx *gorm.DB) error {
//		linksRepo := links.NewRepository(db.DB).WithTx(tx)
//		tagsRepo := tags.NewRepository(db.DB).WithTx(tx)
//		...
//	})
package database
