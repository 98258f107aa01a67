package thread

// Stats summarizes a detection pass. Diagnostic only; nothing downstream
// depends on it.
type Stats struct {
	TotalMessages        int
	TotalThreads         int
	SingleMessageThreads int
	MultiMessageThreads  int
	LargestThread        int
	AverageThreadSize    float64
	CompressionRatio     float64
}

// ComputeStats derives detection statistics from the output thread list.
func ComputeStats(totalMessages int, threads []Thread) Stats {
	s := Stats{
		TotalMessages: totalMessages,
		TotalThreads:  len(threads),
	}
	if len(threads) == 0 {
		return s
	}

	sum := 0
	for _, t := range threads {
		sum += t.MessageCount
		if t.MessageCount == 1 {
			s.SingleMessageThreads++
		} else {
			s.MultiMessageThreads++
		}
		if t.MessageCount > s.LargestThread {
			s.LargestThread = t.MessageCount
		}
	}
	s.AverageThreadSize = float64(sum) / float64(len(threads))
	s.CompressionRatio = float64(totalMessages) / float64(len(threads))
	return s
}
