package events

// DropConnection closes the broker connection underneath p, as a broker
// restart would.
func (p *AMQP) DropConnection() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.Close()
}
