// Package pack defines the starter pack model: manifests, component
// references, installation results and manifest validation.
//
// A pack directory looks like:
//
//	essentials/
//	  manifest.json
//	  components/
//	    modes/engineer.md
//	    workflows/review.md
//	    agents/researcher.md
//	    hooks/git-context.json
//	  scripts/
//	    git-context.sh
//
// Manifests may also be written as manifest.yaml.
package pack
