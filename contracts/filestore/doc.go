/*
Package filestore contains implementation of FileStore contract.

FileStore contract keeps per-owner catalogs of file records pointing to an
external content-addressable store and the two-tier access matrix deciding
who may see them. Catalogs are public, the contract only guarantees that
catalogs and grants are changed by their owners. Every record has a stable
identifier that is never reused, while its position in the catalog is
derived on read and shifts down when earlier records are removed. Per-file
grants are bound to the identifier, so they follow the record.

Every grant also writes a reverse index entry (viewer -> owner) in the same
transaction, so viewers can enumerate owners that might have shared something
with them without scanning the chain.

# Contract notifications

FileAdded notification. This notification is produced when an owner appends
a record to its catalog.

	FileAdded:
	  - name: owner
	    type: Hash160
	  - name: id
	    type: Integer
	  - name: position
	    type: Integer

FileRemoved notification. This notification is produced when a record is
removed from the catalog.

	FileRemoved:
	  - name: owner
	    type: Hash160
	  - name: id
	    type: Integer

AccessGranted notification. This notification is produced when an owner
grants access to the whole catalog and the viewer did not have it before.

	AccessGranted:
	  - name: owner
	    type: Hash160
	  - name: viewer
	    type: Hash160

AccessRevoked notification. This notification is produced when an owner
revokes previously granted access to the whole catalog.

	AccessRevoked:
	  - name: owner
	    type: Hash160
	  - name: viewer
	    type: Hash160

FileShared notification. This notification is produced when an owner grants
access to a single record.

	FileShared:
	  - name: owner
	    type: Hash160
	  - name: id
	    type: Integer
	  - name: viewer
	    type: Hash160

FileUnshared notification. This notification is produced when an owner
revokes access to a single record.

	FileUnshared:
	  - name: owner
	    type: Hash160
	  - name: id
	    type: Integer
	  - name: viewer
	    type: Hash160
*/
package filestore
