package metrics

// NoopProvider discards everything. It is the default of a thread pool.
type NoopProvider struct{}

func NewNoopProvider() NoopProvider { return NoopProvider{} }

func (NoopProvider) Counter(string, ...InstrumentOption) Counter             { return discard{} }
func (NoopProvider) UpDownCounter(string, ...InstrumentOption) UpDownCounter { return discard{} }
func (NoopProvider) Histogram(string, ...InstrumentOption) Histogram         { return discard{} }

type discard struct{}

func (discard) Add(int64)      {}
func (discard) Record(float64) {}
