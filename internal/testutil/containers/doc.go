// Package containers starts throwaway backing services for integration tests.
// Its helpers are only compiled with the integration build tag.
package containers
