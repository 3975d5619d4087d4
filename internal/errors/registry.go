package errors

// Error codes.
const (
	CodePackNotFound          = "PACK_NOT_FOUND"
	CodeManifestNotFound      = "MANIFEST_NOT_FOUND"
	CodeInvalidManifest       = "INVALID_MANIFEST"
	CodeInvalidJSON           = "INVALID_JSON"
	CodeComponentInstallError = "COMPONENT_INSTALL_ERROR"
	CodeComponentRemovalError = "COMPONENT_REMOVAL_ERROR"
	CodeSourceNotFound        = "SOURCE_NOT_FOUND"
	CodeRegistryNotLoaded     = "REGISTRY_NOT_LOADED"
	CodeValidation            = "VALIDATION_ERROR"
	CodeSourceExists          = "SOURCE_EXISTS"
	CodeSourceProtected       = "SOURCE_PROTECTED"
	CodeSourceTypeInvalid     = "SOURCE_TYPE_INVALID"
	CodeNetwork               = "NETWORK_ERROR"
	CodeFileConflict          = "FILE_CONFLICT"
	CodeDependency            = "DEPENDENCY_ERROR"
	CodeHookNotFound          = "HOOK_NOT_FOUND"
	CodeHookExists            = "HOOK_EXISTS"
	CodeTemplateNotFound      = "TEMPLATE_NOT_FOUND"
	CodeConfig                = "CONFIG_ERROR"
	CodeNotInitialized        = "NOT_INITIALIZED"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Pack errors
	// ============================================

	CodePackNotFound: {
		Category:   CategoryPack,
		Message:    "Pack not found",
		Suggestion: "Run 'zcc pack list' to see available packs",
	},
	CodeManifestNotFound: {
		Category:   CategoryPack,
		Message:    "Pack manifest not found",
		Suggestion: "Every pack needs a manifest.json (or manifest.yaml) at its root",
	},
	CodeInvalidManifest: {
		Category:   CategoryPack,
		Message:    "Invalid pack manifest",
		Suggestion: "Run 'zcc pack validate <dir>' to see every problem in the manifest",
	},
	CodeInvalidJSON: {
		Category:   CategoryPack,
		Message:    "Invalid JSON",
		Suggestion: "Check that the file is valid JSON",
	},
	CodeDependency: {
		Category:   CategoryPack,
		Message:    "Dependency resolution failed",
		Suggestion: "Check that every dependency is available from an enabled source",
	},

	// ============================================
	// Install errors
	// ============================================

	CodeComponentInstallError: {
		Category:   CategoryInstall,
		Message:    "Failed to install component",
		Suggestion: "Check file permissions in the .zcc directory",
	},
	CodeComponentRemovalError: {
		Category:   CategoryInstall,
		Message:    "Failed to remove component",
		Suggestion: "Check file permissions in the .zcc directory",
	},
	CodeFileConflict: {
		Category:   CategoryInstall,
		Message:    "File owned by another pack",
		Suggestion: "Uninstall the owning pack first or rerun with --force",
	},

	// ============================================
	// Source errors
	// ============================================

	CodeSourceNotFound: {
		Category:   CategorySource,
		Message:    "Source not found",
		Suggestion: "Run 'zcc source list' to see configured sources",
	},
	CodeSourceExists: {
		Category:   CategorySource,
		Message:    "Source already exists",
		Suggestion: "Choose a different id or remove the existing source first",
	},
	CodeSourceProtected: {
		Category:   CategorySource,
		Message:    "The local source cannot be modified this way",
		Suggestion: "The built-in local source is always present and enabled",
	},
	CodeSourceTypeInvalid: {
		Category:   CategorySource,
		Message:    "Invalid source type",
		Suggestion: "Valid types: local, custom, github, http, s3",
	},
	CodeNetwork: {
		Category:   CategoryNetwork,
		Message:    "Network request failed",
		Suggestion: "Check your internet connection and the source URL",
	},

	// ============================================
	// Registry errors
	// ============================================

	CodeRegistryNotLoaded: {
		Category:   CategoryRegistry,
		Message:    "Registry not loaded",
		Suggestion: "Load the registry before using it",
	},

	// ============================================
	// Validation errors
	// ============================================

	CodeValidation: {
		Category: CategoryValidation,
		Message:  "Validation failed",
	},

	// ============================================
	// Hook errors
	// ============================================

	CodeHookNotFound: {
		Category:   CategoryHook,
		Message:    "Hook not found",
		Suggestion: "Run 'zcc hook list' to see registered hooks",
	},
	CodeHookExists: {
		Category:   CategoryHook,
		Message:    "Hook already exists",
		Suggestion: "Remove the existing hook or choose a different id",
	},
	CodeTemplateNotFound: {
		Category:   CategoryHook,
		Message:    "Template not found",
		Suggestion: "Run 'zcc hook templates' to see available templates",
	},

	// ============================================
	// Config errors
	// ============================================

	CodeConfig: {
		Category:   CategoryConfig,
		Message:    "Configuration error",
		Suggestion: "Check that .zcc/config.json is valid JSON",
	},
	CodeNotInitialized: {
		Category:   CategoryConfig,
		Message:    "zcc is not initialized in this project",
		Suggestion: "Run 'zcc init' in the project root",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
