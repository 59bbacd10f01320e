/*
	Package nifti provides types, constants, and functions that have no other dependencies
	and can be used by all packages within the NIfTI engine.  This includes the voxel
	datatype enumeration, the error kinds reported by every layer, and logging.  Since
	these elements are used at multiple layers (header, codec, layout, extension, volume
	and dataset), we separate them here.
*/
package nifti
