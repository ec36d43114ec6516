// Package tsproto implements the client side of the tsserver wire
// protocol: line-delimited, sequenced JSON request/response messages over
// the stdin/stdout of a spawned language-analysis subprocess.
//
// # Architecture
//
// The package is organized around three components:
//
//   - Transport: subprocess lifecycle and raw line IO
//   - Client: sequence allocation, request/response correlation, events
//   - Version gate: one-time protocol detection and the version-dependent
//     completions request builder
//
// A single background reader consumes the subprocess's output. Each Call
// suspends its caller on a per-request channel until the matching
// request_seq arrives; callers may be concurrent and responses may arrive
// out of issue order. When the subprocess dies, every outstanding call
// fails with ErrServerTerminated and the client becomes unusable until a
// new one is started.
//
// # Quick Start
//
//	t, err := tsproto.StartTransport(tsproto.TransportConfig{Command: "tsserver"})
//	if err != nil {
//	    return err
//	}
//	client := tsproto.NewClient(t)
//	defer client.Close()
//
//	var info tsproto.QuickInfoBody
//	err = client.Call(ctx, "quickinfo", tsproto.FileLocationArgs{
//	    File: "/src/app.ts", Line: 10, Offset: 4,
//	}, &info)
package tsproto
