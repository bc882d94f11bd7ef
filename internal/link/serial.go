// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package link

import (
	"fmt"
	"io"
	"log"

	serial "github.com/jacobsa/go-serial/serial"
	bugst "go.bug.st/serial"
)

// SerialOpener opens portName at baud, 8N1, blocking until at least one
// byte is available on each read.
func SerialOpener(portName string, baud int) Opener {
	return func() (io.ReadWriteCloser, error) {
		opts := serial.OpenOptions{
			PortName:              portName,
			BaudRate:              uint(baud),
			DataBits:              8,
			StopBits:              1,
			MinimumReadSize:       1,
			ParityMode:            serial.PARITY_NONE,
			InterCharacterTimeout: 0,
		}
		port, err := serial.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("serial open %s: %w", portName, err)
		}
		log.Printf("serial port opened on %s at %d baud", portName, baud)
		return port, nil
	}
}

// ListPorts returns the serial ports present on this machine.
func ListPorts() ([]string, error) {
	ports, err := bugst.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
