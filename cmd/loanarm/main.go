package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Borrow     BorrowCommand     `command:"borrow" description:"Pick an item from storage and deliver it to the drop zone"`
	ReturnMode ReturnModeCommand `command:"return-mode" alias:"return" description:"Watch the drop zone and store returned items automatically"`
	Status     StatusCommand     `command:"status" description:"Show item availability and calibration state"`
	Calibrate  CalibrateCommand  `command:"calibrate" description:"Record arm positions"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "LoanArm - office item lending robot CLI"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
