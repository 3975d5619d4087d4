// Package errors provides structured, actionable error messages for zcc.
//
// Every domain error carries a machine-readable code, a short message, an
// optional detail and a suggestion telling the user what to do next.
//
// # Error Codes
//
// Codes are registered in a table mapping each code to its category,
// message and default suggestion:
//   - PACK_NOT_FOUND, MANIFEST_NOT_FOUND, INVALID_MANIFEST, INVALID_JSON
//   - COMPONENT_INSTALL_ERROR, COMPONENT_REMOVAL_ERROR, FILE_CONFLICT
//   - SOURCE_NOT_FOUND, SOURCE_EXISTS, SOURCE_PROTECTED, NETWORK_ERROR
//   - REGISTRY_NOT_LOADED, VALIDATION_ERROR, CONFIG_ERROR, NOT_INITIALIZED
//
// # Usage
//
//	err := errors.New(errors.CodePackNotFound).
//	    WithDetail("Pack 'frontend-react' not found in any source").
//	    WithSuggestion("Run 'zcc source list' to check enabled sources")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR PACK_NOT_FOUND: Pack not found
//	//
//	//   Pack 'frontend-react' not found in any source
//	//
//	//   Hint: Run 'zcc source list' to check enabled sources
package errors
