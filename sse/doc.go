// Package sse writes Server-Sent Events responses: one JSON payload per
// `data:` line, flushed as soon as it is sent.
//
//	w, err := sse.NewWriter(c.Writer)
//	if err != nil {
//		return err
//	}
//	_ = w.Send(event)
package sse
