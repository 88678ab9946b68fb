// Package ocr defines the engine abstraction used to turn a binarised slip
// image into text, plus the Recognizer that pins the slip configuration
// (Thai+English dictionaries, single-block segmentation). Engines can be
// backed by a native library or a local binary without leaking
// provider-specific concerns into callers.
package ocr
