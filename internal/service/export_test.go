package service

// Generation returns the generation of the last begun run.
func (s *RunState) Generation() uint64 {
	return s.gen.Load()
}
