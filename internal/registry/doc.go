// Package registry aggregates pack sources and resolves dependencies
// between packs.
//
// Dependencies are resolved depth first. The result lists dependencies in
// install order and reports, without failing, packs that are missing,
// part of a cycle, or whose version does not satisfy a "name@constraint"
// requirement:
//
//	reg := registry.New(logger, sources...)
//	res, err := reg.ResolveDependencies(ctx, "frontend")
//	if err != nil {
//	    return err
//	}
//	if !res.OK() {
//	    for _, p := range res.Problems() {
//	        fmt.Println(p)
//	    }
//	}
//
// Loaded packs are cached until ClearCache.
package registry
