// Package logx wraps zerolog in a value-type Logger.
//
// Console lines carry a short timestamp and caller, file output stays JSON,
// and WARN+ lines can be forwarded to a RemoteSink (the Telegram chat) at a
// bounded rate. Service.Apply swaps outputs on config reload.
package logx
