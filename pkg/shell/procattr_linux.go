package shell

import "syscall"

// ffmpeg decoder must not outlive the client, even after SIGKILL of the client
var procAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGKILL}
