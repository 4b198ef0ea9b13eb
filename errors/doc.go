// Package errors defines AppError, a coded error with an HTTP status and a
// retryable flag, plus constructors for the failures an outbound call can
// end in. httpclient.ToAppError maps engine errors onto it.
package errors
