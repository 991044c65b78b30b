// Package models contains the GORM persistence models for orders, proposals,
// accuracy records and the catalog. They are kept apart from the domain types
// so the domain stays free of ORM tags; each model has ToDomain and a
// XModelFromDomain constructor.
//
// JSON columns (tags, metadata, proposed values) use gorm.io/datatypes so the
// same models work on PostgreSQL (jsonb) and on SQLite in tests.
package models
