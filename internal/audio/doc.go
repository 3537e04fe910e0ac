// Package audio buffers raw PCM per speaker and flushes accumulated bytes
// to the backend as chunks. A buffer flushes when it reaches the size
// threshold or when its oldest bytes exceed the flush interval, whichever
// comes first. A background sweeper covers speakers that stop producing
// frames mid-buffer.
package audio
