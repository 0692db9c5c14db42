package annoyforest

// Close releases resources held by a Loaded forest (the memory mapping,
// the open blob handle, or the file an on-disk build wrote into). It is a
// no-op for a forest that holds none of these.
func (f *Forest) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unloadLocked()
}
