// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness sources the dispatcher blocks on:
// a select(2) backend matching the classic single-wait reactor, and a
// poll(2) backend without the FD_SETSIZE ceiling. Both are built on
// golang.org/x/sys/unix; other platforms get a stub.
package reactor
