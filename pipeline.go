package redwire

import (
	"context"

	"redwire/internal/resp"
)

// Pipeline batches commands to be written back-to-back and read back in
// the same order, paying one round trip for the whole batch instead of
// one round trip per command. Pipeline is not safe for
// concurrent use — build it from a single goroutine, call Flush once.
type Pipeline struct {
	client *Client
	cmds   [][][]byte
}

// Enqueue appends a command to the pipeline without sending it.
func (p *Pipeline) Enqueue(name string, args ...any) *Pipeline {
	p.cmds = append(p.cmds, resp.Args(name, args...))
	return p
}

// Len reports how many commands are queued.
func (p *Pipeline) Len() int {
	return len(p.cmds)
}

// Flush writes every queued command as its own RESP array, then reads
// back exactly len(queued) replies in the order they were enqueued.
// Individual commands that the server rejects come back as a Reply with
// Type == Error at their slot; Flush itself only fails on a transport or
// protocol fault, a mode error, or a done ctx, in which case no replies
// are returned.
func (p *Pipeline) Flush(ctx context.Context) ([]Reply, error) {
	if len(p.cmds) == 0 {
		return nil, nil
	}
	cmds := p.cmds
	p.cmds = nil

	replies, err := p.client.exec.ExecBatch(ctx, cmds)
	if err != nil {
		return nil, translateExecError(err)
	}
	return replies, nil
}
