// Package reduce prunes fitted random weight networks. A Reducer applies
// a named strategy to a network or to every member of an ensemble,
// removing individual weights, whole neurons or whole ensemble members,
// and then cleans up the structure and optionally re-estimates the output
// layer in closed form.
//
// The builtin strategies are magnitude based (global, uniform, lamp),
// activation based (apoz, norm), correlation based (correlation,
// correlationtest), importance based (relief) and the output back-trace
// (output); trained stacking ensembles additionally support stack, which
// trims members by combination weight. Custom strategies plug in through
// Register or ReduceWith.
//
// Every reduction leaves the target either fully updated or, on a fatal
// error, exactly as it was.
package reduce
