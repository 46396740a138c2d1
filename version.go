package lammm

// Version of the lammm library and CLI.
const Version = "0.1.0"
