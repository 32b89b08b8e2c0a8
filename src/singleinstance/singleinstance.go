// Package singleinstance keeps one resident process per user session and lets
// later launches hand work to it over a loopback TCP line protocol:
//
//	PING\n    -> PONG\n
//	CAPTURE\n -> OK\n   (the resident starts a region selection)
package singleinstance

import "time"

const (
	residentHost   = "127.0.0.1"
	pingRequest    = "PING\n"
	pongResponse   = "PONG\n"
	captureRequest = "CAPTURE\n"
	okResponse     = "OK\n"
	errorResponse  = "ERROR\n"
	requestTimeout = 3 * time.Second

	captureSource = "remote"
)
