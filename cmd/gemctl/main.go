// cmd/gemctl/main.go
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("gemctl failed")
		os.Exit(1)
	}
}
