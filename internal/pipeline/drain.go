package pipeline

// drainLoop is the output drain worker: it consumes slot indices from
// s.submitted in strict submission order (the channel is single-
// producer, single-consumer and FIFO, so order is free), waits on each
// slot's completion event, copies the bitstream out, unwinds the keyed
// mutex handshake back to the capture side, frees the ring slot, and
// invokes the callback.
//
// Waiting in submission order rather than wait-any on all pending
// events means one slow frame cannot let a later, faster frame's
// callback fire out of order — see spec section 9's design note on why
// a dedicated worker does in-order waits instead of polling or
// wait-any.
func (s *EncoderSession) drainLoop() {
	defer s.drainWG.Done()

	for slot := range s.submitted {
		s.drainSlot(slot)
	}
}

func (s *EncoderSession) drainSlot(slot int) {
	for {
		select {
		case <-s.stopCtx.Done():
			log.Warn("drain abandoning slot at teardown", "slot", slot)
			s.ring.release(slot)
			return
		default:
		}

		ok, err := s.backend.WaitCompletion(slot, mutexWaitTimeout)
		if err != nil {
			log.Error("wait completion failed", "slot", slot, "error", err)
			s.ring.release(slot)
			return
		}
		if !ok {
			s.waitTimeoutDiag.log(log, "completion wait timed out", "slot", slot)
			continue
		}
		break
	}

	data, ptype, err := s.backend.LockBitstream(slot)
	if err != nil {
		log.Error("lock bitstream failed", "slot", slot, "error", err)
		s.finishSlot(slot)
		return
	}

	out := s.bufPool.get(len(data))
	out = append(out, data...)

	if err := s.backend.UnlockBitstream(slot); err != nil {
		log.Error("unlock bitstream failed", "slot", slot, "error", err)
	}

	frame := EncodedFrame{
		Data:         out,
		Timestamp100: s.timestamps[slot],
		PictureType:  ptype,
	}

	s.finishSlot(slot)

	if cb := s.getCallback(); cb != nil {
		cb(frame)
	} else {
		s.bufPool.put(out)
	}
}

// finishSlot releases the keyed mutex back to the capture side and
// frees the ring slot for reuse. It is the counterpart to Submit's
// mutex.Acquire(KeyCapture)/Acquire(KeyEncoder) pair.
func (s *EncoderSession) finishSlot(slot int) {
	mutex := s.pool.Slot(slot).Mutex()
	if err := mutex.Release(KeyCapture); err != nil {
		log.Error("keyed mutex release (to capture) failed", "slot", slot, "error", err)
	}
	s.ring.release(slot)
}
