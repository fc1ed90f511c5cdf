package search

// SearchConfig bounds how many global fault-injection steps the generator
// may emit across an entire trace. A nil field means unbounded; a non-nil
// field gates the corresponding event.Stat counter via within, so once the
// budget is spent the generator stops offering that kind of step.
type SearchConfig struct {
	MaxNodeFaults    *int
	MaxNodeShutdowns *int
	MaxDiskFaults    *int
	MaxMsgDrops      *int
}

// Option configures a SearchConfig via NewSearchConfig.
type Option func(*SearchConfig)

func WithNodeFaults(n int) Option    { return func(c *SearchConfig) { c.MaxNodeFaults = &n } }
func WithNodeShutdowns(n int) Option { return func(c *SearchConfig) { c.MaxNodeShutdowns = &n } }
func WithDiskFaults(n int) Option    { return func(c *SearchConfig) { c.MaxDiskFaults = &n } }
func WithMsgDrops(n int) Option      { return func(c *SearchConfig) { c.MaxMsgDrops = &n } }

// NewSearchConfig builds a SearchConfig from options, leaving any field
// untouched (nil, unbounded) if its option isn't supplied.
func NewSearchConfig(opts ...Option) SearchConfig {
	var cfg SearchConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Unlimited permits every fault-injection step without bound. Rarely what a
// terminating exhaustive search wants, but useful for Checker.Apply
// scenarios that only ever take a handful of scripted steps.
func Unlimited() SearchConfig { return SearchConfig{} }

// NoFaults disables node crashes, shutdowns, and disk faults but leaves
// message drops unbounded.
func NoFaults() SearchConfig {
	return NewSearchConfig(WithNodeFaults(0), WithNodeShutdowns(0), WithDiskFaults(0))
}

// NoDrops disables message drops but leaves node/disk faults unbounded.
func NoDrops() SearchConfig {
	return NewSearchConfig(WithMsgDrops(0))
}

// NoFaultsWithDrops disables node/disk faults and caps message drops at n.
func NoFaultsWithDrops(n int) SearchConfig {
	return NewSearchConfig(WithNodeFaults(0), WithNodeShutdowns(0), WithDiskFaults(0), WithMsgDrops(n))
}

// NoFaultsNoDrops disables every fault-injection step, leaving only the
// system's own ready-event selection steps — the smallest state space for a
// given scenario.
func NoFaultsNoDrops() SearchConfig {
	return NewSearchConfig(WithNodeFaults(0), WithNodeShutdowns(0), WithDiskFaults(0), WithMsgDrops(0))
}

// WithNodeFaultsOnly caps node crashes at n and disables every other fault.
func WithNodeFaultsOnly(n int) SearchConfig {
	return NewSearchConfig(WithNodeFaults(n), WithNodeShutdowns(0), WithDiskFaults(0), WithMsgDrops(0))
}

// WithNodeShutdownOnly caps node shutdowns at n and disables every other fault.
func WithNodeShutdownOnly(n int) SearchConfig {
	return NewSearchConfig(WithNodeShutdowns(n), WithNodeFaults(0), WithDiskFaults(0), WithMsgDrops(0))
}

// within reports whether used has not yet reached limit; a nil limit is
// unbounded.
func within(used int, limit *int) bool {
	return limit == nil || used < *limit
}
