// Command ccod runs the host side of the Ethernet audio link.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := RootCommand().Execute(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "main",
			"error":    err.Error(),
		}).Error("ccod failed")
		os.Exit(1)
	}
}
