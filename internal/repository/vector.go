package repository

import "github.com/pgvector/pgvector-go"

// vectorSlice returns the components of a nullable vector column. Scanning into **pgvector.Vector
// requires the pool to register pgvector types (pgxvec.RegisterTypes).
func vectorSlice(v *pgvector.Vector) []float32 {
	if v == nil {
		return nil
	}

	return v.Slice()
}

// nullableVector returns nil for an empty embedding so it is stored as NULL.
func nullableVector(embedding []float32) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}

	vec := pgvector.NewVector(embedding)

	return &vec
}
