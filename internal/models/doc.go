// Package models defines domain entities and persistence interfaces for the acegen playlist generator.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs flowing through the generation pipeline
//   - [Channel] : One playable source with its flattened engine metadata
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [CheckRecord] : Cached availability probe results keyed by infohash
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
