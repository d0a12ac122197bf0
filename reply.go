package redwire

import "redwire/internal/resp"

// ReplyType tags the five RESP2 reply shapes.
type ReplyType = resp.Type

const (
	Status  = resp.Status
	Error   = resp.Error
	Integer = resp.Integer
	Bulk    = resp.Bulk
	Array   = resp.Array
)

// Reply is a single server reply: Status/Error/Integer/Bulk/Array, exactly
// as spelled out by RESP2.
type Reply = resp.Reply

// PairsToMap folds a flat [key, value, key, value, ...] array reply (the
// shape HGETALL/CONFIG GET return) into a map.
func PairsToMap(r Reply) (map[string]string, error) {
	return resp.PairsToMap(r)
}
