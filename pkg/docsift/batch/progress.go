package batch

// Progress is an advisory notification sent after each file.
type Progress struct {
	Done     int
	Total    int
	Path     string
	Fraction float64
}

// Observer receives progress. It runs on a single goroutine, never on a
// worker, so a slow observer only loses notifications.
type Observer func(Progress)

const progressBuffer = 64

type progressPump struct {
	ch   chan Progress
	done chan struct{}
}

func startProgress(obs Observer) *progressPump {
	if obs == nil {
		return nil
	}
	p := &progressPump{
		ch:   make(chan Progress, progressBuffer),
		done: make(chan struct{}),
	}
	go func() {
		defer close(p.done)
		for ev := range p.ch {
			obs(ev)
		}
	}()
	return p
}

// send drops ev when the buffer is full.
func (p *progressPump) send(ev Progress) {
	if p == nil {
		return
	}
	select {
	case p.ch <- ev:
	default:
	}
}

func (p *progressPump) stop() {
	if p == nil {
		return
	}
	close(p.ch)
	<-p.done
}
