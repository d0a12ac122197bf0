package redwire

import (
	"context"
	"fmt"

	"redwire/internal/resp"
)

// Transaction batches commands inside MULTI/EXEC. Build it with Enqueue,
// then call Flush to run MULTI, the queued commands, and EXEC as a single
// pipelined batch (one round trip), or Discard to abandon it.
//
// Wire shape on Flush, per RESP2: MULTI replies +OK, each queued command
// replies +QUEUED, and EXEC replies with one Array holding exactly
// len(queued) elements, each the real reply the command would have
// produced standalone. Flush returns an error if the server's reply
// sequence doesn't match that shape, which happens if a queued command
// was malformed (aborting the transaction server-side).
type Transaction struct {
	client *Client
	cmds   [][][]byte
}

// Enqueue appends a command to the transaction without sending it.
func (t *Transaction) Enqueue(name string, args ...any) *Transaction {
	t.cmds = append(t.cmds, resp.Args(name, args...))
	return t
}

// Len reports how many commands are queued.
func (t *Transaction) Len() int {
	return len(t.cmds)
}

// Flush runs MULTI, every queued command, and EXEC as one batch and
// returns the per-command replies from EXEC's result array.
func (t *Transaction) Flush(ctx context.Context) ([]Reply, error) {
	cmds := t.cmds
	t.cmds = nil

	batch := make([][][]byte, 0, len(cmds)+2)
	batch = append(batch, resp.Args("MULTI"))
	batch = append(batch, cmds...)
	batch = append(batch, resp.Args("EXEC"))

	replies, err := t.client.exec.ExecBatch(ctx, batch)
	if err != nil {
		return nil, translateExecError(err)
	}
	return validateTxReplies(replies, len(cmds))
}

// Discard runs MULTI, every queued command, and DISCARD as one batch,
// abandoning the transaction; nothing is executed server-side. It returns
// only a transport, protocol or mode failure: the server's replies to
// MULTI, the queued commands and DISCARD are neither returned nor checked.
func (t *Transaction) Discard(ctx context.Context) error {
	cmds := t.cmds
	t.cmds = nil

	batch := make([][][]byte, 0, len(cmds)+2)
	batch = append(batch, resp.Args("MULTI"))
	batch = append(batch, cmds...)
	batch = append(batch, resp.Args("DISCARD"))

	_, err := t.client.exec.ExecBatch(ctx, batch)
	if err != nil {
		return translateExecError(err)
	}
	return nil
}

func validateTxReplies(replies []Reply, nCmds int) ([]Reply, error) {
	if len(replies) != nCmds+2 {
		return nil, &ProtocolError{Err: fmt.Errorf("transaction: expected %d replies, got %d", nCmds+2, len(replies))}
	}
	if replies[0].Type == resp.Error {
		return nil, &ServerError{Message: replies[0].Str}
	}
	if replies[0].Type != resp.Status || replies[0].Str != "OK" {
		return nil, &ProtocolError{Err: fmt.Errorf("transaction: unexpected MULTI reply %q", replies[0].String())}
	}
	for i := 0; i < nCmds; i++ {
		q := replies[1+i]
		if q.Type == resp.Error {
			return nil, &ServerError{Message: q.Str}
		}
		if q.Type != resp.Status || q.Str != "QUEUED" {
			return nil, &ProtocolError{Err: fmt.Errorf("transaction: unexpected reply %q for queued command %d", q.String(), i)}
		}
	}
	exec := replies[nCmds+1]
	if exec.Type == resp.Error {
		return nil, &ServerError{Message: exec.Str}
	}
	if exec.IsNil {
		// Transaction aborted server-side (e.g. WATCH key changed).
		return nil, nil
	}
	if exec.Type != resp.Array {
		return nil, &ProtocolError{Err: fmt.Errorf("transaction: EXEC reply was not an array")}
	}
	if len(exec.Elems) != nCmds {
		return nil, &ProtocolError{Err: fmt.Errorf("transaction: EXEC returned %d replies, expected %d", len(exec.Elems), nCmds)}
	}
	return exec.Elems, nil
}
