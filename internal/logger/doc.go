// Package logger wraps a global zap.SugaredLogger.
//
// Components log through the package helpers with a context so that request or
// device scoped fields added with WithKV travel with the call.
package logger
