// Package dataset reads training data into gbdt.Matrix values.
//
// Supported sources are LibSVM text, CSV and NumPy .npy files. Load accepts a
// URI of the form
//
//	path?format=libsvm|csv|npy&label_column=0&header=1&labels=y.npy
//
// and picks the format from the file extension when no format is given.
package dataset
