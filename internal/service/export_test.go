package service

// Tracked - число записей с учётом мутаций: слотов и номеров выдачи
func (s *TaskService) Tracked() (slots, seqs int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return len(s.slots), len(s.seq)
}
