package config

import "runtime"

func maxProcsHint() int { return runtime.NumCPU() }
