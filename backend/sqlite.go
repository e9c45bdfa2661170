package backend

// Registers the pure-Go sqlite driver under the name "sqlite".
import _ "modernc.org/sqlite"
