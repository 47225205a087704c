package disk

// PAGE_SIZE is the fixed size, in bytes, of every page and every frame's
// backing buffer.
const PAGE_SIZE = 4096

// INVALID_PAGE_ID signals "no page" wherever a page_id is optional: an
// empty tree's header, a leaf's next pointer, a frame that holds nothing.
const INVALID_PAGE_ID int64 = -1

// DEFAULT_PAGE_CAPACITY is the number of pages the backing file is sized
// for before IncreaseDiskSpace or a page-beyond-EOF write grows it.
const DEFAULT_PAGE_CAPACITY = 16
