package stream

// OnDrain exposes the drain hook to the external test package.
var OnDrain = onDrain
