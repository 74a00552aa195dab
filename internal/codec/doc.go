// Package codec decodes, resizes, and re-encodes site images.
//
// Decoding honours EXIF orientation and covers JPEG, PNG, and WebP; HEIC input
// reaches this package already normalized to JPEG bytes. Encoding uses
// imaging for JPEG and PNG and libwebp for WebP. The optional jpegtran and
// pngquant post-processors add progressive scans and palette quantization when
// they are installed.
package codec
